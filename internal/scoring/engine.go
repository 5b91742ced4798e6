// Package scoring combines deterministic heuristic rules with an optional
// model adjustment into a final score, tier, and ordered explanation list.
// The heuristic layer always runs; the model layer may be absent, slow, or
// broken and only ever degrades the output, never fails it.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/features"
	"github.com/etherlens/etherlens/internal/inference"
)

// Tier is the discrete risk bucket derived from the numeric score.
type Tier int

const (
	TierSafe Tier = iota
	TierModerate
	TierHigh
)

// String returns the wire form of the tier.
func (t Tier) String() string {
	switch t {
	case TierSafe:
		return "Safe"
	case TierModerate:
		return "Moderate Risk"
	case TierHigh:
		return "High Risk"
	default:
		return "Unknown"
	}
}

// Weights are the per-rule score contributions. Negative weights reduce
// risk. Zero-value weights mean "use defaults" as a block.
type Weights struct {
	Unverified         float64 `yaml:"unverified"`
	UnlockedLiquidity  float64 `yaml:"unlocked_liquidity"`
	Honeypot           float64 `yaml:"honeypot"`
	NewContract        float64 `yaml:"new_contract"`
	MintPrivileges     float64 `yaml:"mint_privileges"`
	HighMintCount      float64 `yaml:"high_mint_count"`
	UnverifiedNewCombo float64 `yaml:"unverified_new_combo"`

	WalletMatured       float64 `yaml:"wallet_matured"` // negative: old wallets are safer
	WalletFailedRatio   float64 `yaml:"wallet_failed_ratio"`
	WalletBurst         float64 `yaml:"wallet_burst"`
	WalletDormantActive float64 `yaml:"wallet_dormant_active"`
}

// DefaultWeights returns the production rule weights.
func DefaultWeights() Weights {
	return Weights{
		Unverified:         0.35,
		UnlockedLiquidity:  0.30,
		Honeypot:           0.25,
		NewContract:        0.20,
		MintPrivileges:     0.15,
		HighMintCount:      0.10,
		UnverifiedNewCombo: 0.15,

		WalletMatured:       -0.10,
		WalletFailedRatio:   0.15,
		WalletBurst:         0.10,
		WalletDormantActive: 0.10,
	}
}

func (w Weights) isZero() bool {
	return w == Weights{}
}

// Config configures the scoring engine. Cut points and rule thresholds are
// product-tuning parameters, never hardcoded at call sites.
type Config struct {
	// SafeBelow and HighAt are the tier cut points: score < SafeBelow is
	// Safe, score >= HighAt is High, anything between is Moderate.
	SafeBelow float64 `yaml:"safe_below"`
	HighAt    float64 `yaml:"high_at"`

	MaxExplanations int           `yaml:"max_explanations"`
	ModelTimeout    time.Duration `yaml:"model_timeout"`

	NewContractDays   int `yaml:"new_contract_days"`
	HighMintThreshold int `yaml:"high_mint_threshold"`

	MaturedAgeDays      int     `yaml:"matured_age_days"`
	FailedRatioPct      float64 `yaml:"failed_ratio_pct"`
	BurstCounterparties int     `yaml:"burst_counterparties"`
	BurstWindowDays     int     `yaml:"burst_window_days"`
	DormantGapDays      int     `yaml:"dormant_gap_days"`
	DormantRecentDays   int     `yaml:"dormant_recent_days"`

	Weights Weights `yaml:"weights"`
}

// DefaultConfig returns scoring defaults.
func DefaultConfig() Config {
	return Config{
		SafeBelow:           0.30,
		HighAt:              0.70,
		MaxExplanations:     12,
		ModelTimeout:        6 * time.Second,
		NewContractDays:     30,
		HighMintThreshold:   10,
		MaturedAgeDays:      365,
		FailedRatioPct:      20,
		BurstCounterparties: 100,
		BurstWindowDays:     30,
		DormantGapDays:      180,
		DormantRecentDays:   30,
		Weights:             DefaultWeights(),
	}
}

// TierFor maps a score to its tier under the configured cut points.
func (c Config) TierFor(score float64) Tier {
	switch {
	case score >= c.HighAt:
		return TierHigh
	case score >= c.SafeBelow:
		return TierModerate
	default:
		return TierSafe
	}
}

// RuleHit records one fired heuristic rule.
type RuleHit struct {
	Name   string
	Weight float64
	Reason string
}

// Assessment is the scoring output.
type Assessment struct {
	Score       float64
	Tier        Tier
	Explanation []string
	Summary     string
	ModelUsed   bool
	Fired       []RuleHit
}

// Engine runs the two scoring stages. A nil provider means heuristic-only
// operation without a degraded-analysis annotation; a failing provider
// means heuristic-only operation with one.
type Engine struct {
	config   Config
	provider inference.Provider
}

// New creates a scoring engine.
func New(config Config, provider inference.Provider) *Engine {
	def := DefaultConfig()
	if config.SafeBelow == 0 && config.HighAt == 0 {
		config.SafeBelow = def.SafeBelow
		config.HighAt = def.HighAt
	}
	if config.MaxExplanations == 0 {
		config.MaxExplanations = def.MaxExplanations
	}
	if config.ModelTimeout == 0 {
		config.ModelTimeout = def.ModelTimeout
	}
	if config.NewContractDays == 0 {
		config.NewContractDays = def.NewContractDays
	}
	if config.HighMintThreshold == 0 {
		config.HighMintThreshold = def.HighMintThreshold
	}
	if config.MaturedAgeDays == 0 {
		config.MaturedAgeDays = def.MaturedAgeDays
	}
	if config.FailedRatioPct == 0 {
		config.FailedRatioPct = def.FailedRatioPct
	}
	if config.BurstCounterparties == 0 {
		config.BurstCounterparties = def.BurstCounterparties
	}
	if config.BurstWindowDays == 0 {
		config.BurstWindowDays = def.BurstWindowDays
	}
	if config.DormantGapDays == 0 {
		config.DormantGapDays = def.DormantGapDays
	}
	if config.DormantRecentDays == 0 {
		config.DormantRecentDays = def.DormantRecentDays
	}
	if config.Weights.isZero() {
		config.Weights = DefaultWeights()
	}
	return &Engine{config: config, provider: provider}
}

// ModelEnabled reports whether a model provider is wired in.
func (e *Engine) ModelEnabled() bool {
	return e.provider != nil
}

// Score produces the assessment for a feature set. It never returns an
// error: model failures degrade to heuristic-only output.
func (e *Engine) Score(ctx context.Context, set *features.Set) *Assessment {
	var hits []RuleHit
	switch set.Kind {
	case chain.KindWallet:
		hits = e.walletRules(set)
	default:
		hits = e.contractRules(set)
	}

	heuristic := 0.0
	for _, h := range hits {
		heuristic += h.Weight
	}
	heuristic = clamp(heuristic, 0, 0.99)

	// Highest-impact factors first; protective (negative) weights sink to
	// the bottom.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Weight > hits[j].Weight })

	score := heuristic
	modelUsed := false
	var narrative []string
	var degraded []string

	if e.provider != nil {
		assessment, err := e.assessModel(ctx, set, heuristic)
		if err != nil {
			log.Warn().Err(err).Str("address", set.Address.String()).
				Msg("scoring: model layer unavailable, heuristic-only")
			degraded = append(degraded, "Note: Model analysis was unavailable; this assessment is based on heuristic rules only.")
		} else {
			delta := clamp(assessment.ScoreDelta, -inference.MaxDelta, inference.MaxDelta)
			score = clamp(heuristic+delta, 0, 1)
			narrative = assessment.Narrative
			modelUsed = true
		}
	}

	if len(set.Degraded) > 0 {
		degraded = append(degraded, fmt.Sprintf(
			"Note: Some data sources were unavailable (%s); the assessment may be incomplete.",
			strings.Join(set.Degraded, ", ")))
	}

	tier := e.config.TierFor(score)
	explanation := e.buildExplanation(set, score, tier, hits, narrative, degraded)

	return &Assessment{
		Score:       score,
		Tier:        tier,
		Explanation: explanation,
		Summary:     overviewLine(set),
		ModelUsed:   modelUsed,
		Fired:       hits,
	}
}

func (e *Engine) assessModel(ctx context.Context, set *features.Set, heuristic float64) (*inference.Assessment, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.ModelTimeout)
	defer cancel()

	req := inference.AssessRequest{
		Address:        set.Address.String(),
		Kind:           set.Kind.String(),
		HeuristicScore: heuristic,
		Features:       featureMap(set),
		TimeoutMs:      int(e.config.ModelTimeout.Milliseconds()),
	}
	if set.Contract != nil {
		req.SourceExcerpt = set.Contract.SourceExcerpt
	}
	return e.provider.Assess(ctx, req)
}

func (e *Engine) contractRules(set *features.Set) []RuleHit {
	c := set.Contract
	if c == nil {
		return nil
	}
	w := e.config.Weights
	var hits []RuleHit

	if !c.Verified {
		hits = append(hits, RuleHit{
			Name:   "unverified_contract",
			Weight: w.Unverified,
			Reason: fmt.Sprintf("The contract source code is not verified on Etherscan, making it difficult to audit its functionality. (Impact: %.2f)", w.Unverified),
		})
	}
	if set.Kind == chain.KindTokenContract && !c.LPLocked {
		hits = append(hits, RuleHit{
			Name:   "unlocked_liquidity",
			Weight: w.UnlockedLiquidity,
			Reason: fmt.Sprintf("The liquidity is not locked, allowing for potential rug pulls or token dumps. (Impact: %.2f)", w.UnlockedLiquidity),
		})
	}
	if c.HoneypotPattern {
		hits = append(hits, RuleHit{
			Name:   "honeypot_pattern",
			Weight: w.Honeypot,
			Reason: fmt.Sprintf("The contract shows patterns similar to known honeypot scams. (Impact: %.2f)", w.Honeypot),
		})
	}
	if c.ContractAgeDays < e.config.NewContractDays {
		hits = append(hits, RuleHit{
			Name:   "new_contract",
			Weight: w.NewContract,
			Reason: fmt.Sprintf("This is a newly deployed contract with limited history and community trust. (Impact: %.2f)", w.NewContract),
		})
	}
	if c.HasMintPrivileges {
		hits = append(hits, RuleHit{
			Name:   "mint_privileges",
			Weight: w.MintPrivileges,
			Reason: fmt.Sprintf("The contract has minting privileges, which could be used to inflate the token supply. (Impact: %.2f)", w.MintPrivileges),
		})
	}
	if c.MintEventCount > e.config.HighMintThreshold {
		hits = append(hits, RuleHit{
			Name:   "high_mint_count",
			Weight: w.HighMintCount,
			Reason: fmt.Sprintf("An unusually high number of mint events (%d) was observed. (Impact: %.2f)", c.MintEventCount, w.HighMintCount),
		})
	}
	if !c.Verified && c.ContractAgeDays < e.config.NewContractDays {
		hits = append(hits, RuleHit{
			Name:   "unverified_new_combo",
			Weight: w.UnverifiedNewCombo,
			Reason: fmt.Sprintf("Combined impact of an unverified and newly deployed contract increases overall risk. (Impact: %.2f)", w.UnverifiedNewCombo),
		})
	}
	return hits
}

func (e *Engine) walletRules(set *features.Set) []RuleHit {
	wf := set.Wallet
	if wf == nil {
		return nil
	}
	w := e.config.Weights
	var hits []RuleHit

	if wf.WalletAgeDays >= e.config.MaturedAgeDays {
		hits = append(hits, RuleHit{
			Name:   "matured_wallet",
			Weight: w.WalletMatured,
			Reason: fmt.Sprintf("The wallet has been active for %d days, which is a positive trust signal. (Impact: %.2f)", wf.WalletAgeDays, w.WalletMatured),
		})
	}
	if wf.TotalTransactions > 0 {
		ratio := float64(wf.FailedTxCount) / float64(wf.TotalTransactions) * 100
		if ratio > e.config.FailedRatioPct {
			hits = append(hits, RuleHit{
				Name:   "high_failed_ratio",
				Weight: w.WalletFailedRatio,
				Reason: fmt.Sprintf("%.0f%% of this wallet's transactions failed, which can indicate automated or abusive activity. (Impact: %.2f)", ratio, w.WalletFailedRatio),
			})
		}
	}
	if wf.UniqueCounterparties >= e.config.BurstCounterparties && wf.WalletAgeDays <= e.config.BurstWindowDays {
		hits = append(hits, RuleHit{
			Name:   "counterparty_burst",
			Weight: w.WalletBurst,
			Reason: fmt.Sprintf("The wallet contacted %d distinct addresses within %d days, a pattern common to spam or sybil operations. (Impact: %.2f)", wf.UniqueCounterparties, wf.WalletAgeDays, w.WalletBurst),
		})
	}
	if wf.LongestGapDays >= e.config.DormantGapDays && wf.DaysSinceLastTx <= e.config.DormantRecentDays {
		hits = append(hits, RuleHit{
			Name:   "dormant_then_active",
			Weight: w.WalletDormantActive,
			Reason: fmt.Sprintf("The wallet resumed activity after a dormant period of %d days, which often accompanies compromised keys. (Impact: %.2f)", wf.LongestGapDays, w.WalletDormantActive),
		})
	}
	return hits
}

func (e *Engine) buildExplanation(set *features.Set, score float64, tier Tier, hits []RuleHit, narrative, degraded []string) []string {
	out := []string{
		overviewLine(set),
		fmt.Sprintf("Risk Assessment: This address has been classified as %s with a risk score of %.2f", tier, score),
	}
	if len(hits) > 0 {
		out = append(out, "Detected Risk Factors:")
		for _, h := range hits {
			out = append(out, h.Reason)
		}
	}
	out = append(out, narrative...)
	out = append(out, degraded...)
	out = append(out, "Recommendation: "+recommendation(tier))

	if len(out) > e.config.MaxExplanations {
		// The recommendation always survives the cap.
		rec := out[len(out)-1]
		out = out[:e.config.MaxExplanations-1]
		out = append(out, rec)
	}
	return out
}

func overviewLine(set *features.Set) string {
	switch {
	case set.Contract != nil:
		c := set.Contract
		verified := "unverified"
		if c.Verified {
			verified = "verified"
		}
		locked := "not locked"
		if c.LPLocked {
			locked = "locked"
		}
		honeypot := "passed"
		if c.HoneypotPattern {
			honeypot = "failed"
		}
		return fmt.Sprintf("Analysis Overview: This is an %s contract created %d days ago. Liquidity is %s. Honeypot test %s. There were %d burn events",
			verified, c.ContractAgeDays, locked, honeypot, c.BurnEventCount)
	case set.Wallet != nil:
		w := set.Wallet
		return fmt.Sprintf("Analysis Overview: This is a wallet first seen %d days ago with %d transactions (%d outgoing, %d incoming, %d failed) across %d unique addresses",
			w.WalletAgeDays, w.TotalTransactions, w.OutgoingTxCount, w.IncomingTxCount, w.FailedTxCount, w.UniqueCounterparties)
	default:
		return "Analysis Overview: No feature data available for this address"
	}
}

func recommendation(tier Tier) string {
	switch tier {
	case TierHigh:
		return "Exercise extreme caution when interacting with this address. Consider avoiding transactions unless you fully understand the risks."
	case TierModerate:
		return "Proceed with caution and conduct thorough due diligence before any significant interactions."
	default:
		return "This address appears to be relatively safe based on our analysis, but always exercise normal caution."
	}
}

// featureMap flattens the set into the model input contract.
func featureMap(set *features.Set) map[string]any {
	m := map[string]any{
		"kind":             set.Kind.String(),
		"degraded_sources": set.Degraded,
	}
	if c := set.Contract; c != nil {
		m["verified_contract"] = c.Verified
		m["is_owner_deployer"] = c.OwnerIsDeployer
		m["has_mint_privileges"] = c.HasMintPrivileges
		m["mint_event_count"] = c.MintEventCount
		m["burn_event_count"] = c.BurnEventCount
		m["honeypot_result"] = c.HoneypotPattern
		m["lp_locked"] = c.LPLocked
		m["contract_age_days"] = c.ContractAgeDays
	}
	if t := set.Token; t != nil {
		m["token_symbol"] = t.Symbol
		m["total_liquidity_eth"] = t.TotalLiquidityETH.String()
		m["buy_sell_ratio"] = t.HolderActivity.BuySellRatio
		m["large_transactions"] = t.WhaleAnalysis.LargeTransactions
	}
	if w := set.Wallet; w != nil {
		m["wallet_age_days"] = w.WalletAgeDays
		m["total_transactions"] = w.TotalTransactions
		m["failed_tx_count"] = w.FailedTxCount
		m["unique_interacted_addresses"] = w.UniqueCounterparties
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
