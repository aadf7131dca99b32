package notifier

import (
	"fmt"
	"strings"
	"time"

	"StakePool/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/holiman/uint256"
)

// FormatAmount renders a token amount with thousands separators.
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return humanize.BigComma(v.ToBig())
}

// FormatPoolStatus formats the pool summary for display.
func FormatPoolStatus(snap *model.PoolSnapshot) string {
	p := snap.Params
	var b strings.Builder
	b.WriteString("📦 <b>Pool status</b>\n\n")
	b.WriteString(fmt.Sprintf("Total staked: %s %s\n", FormatAmount(snap.TotalStaked), p.StakeToken))
	b.WriteString(fmt.Sprintf("Unclaimed rewards: %s %s\n", FormatAmount(snap.TotalRewards), p.RewardToken))
	b.WriteString(fmt.Sprintf("Forfeited: %s %s\n", FormatAmount(snap.Forfeited), p.StakeToken))
	b.WriteString(fmt.Sprintf("Stakers: %d / %d accounts\n", snap.Stakers, snap.Participants))
	b.WriteString(fmt.Sprintf("Reward rate: %d%% per %s\n", p.RewardRatePercent, p.RewardPeriod))
	b.WriteString(fmt.Sprintf("Locked time: %s (penalty %d%%)\n", p.LockedTime, p.PenaltyPercent))
	b.WriteString(fmt.Sprintf("As of: %s\n", snap.TakenAt.Format("2006-01-02 15:04")))
	return b.String()
}

// FormatReport formats the scheduled pool report.
func FormatReport(snap *model.PoolSnapshot) string {
	return fmt.Sprintf("📊 <b>Staking pool report</b> | %s\n\n%s", snap.TakenAt.Format("2006-01-02"), FormatPoolStatus(snap))
}

// FormatAccount formats one participant's position.
func FormatAccount(acc *model.Account, pending *uint256.Int, params model.PoolParams, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("👤 <b>%s</b>\n\n", acc.Address))
	b.WriteString(fmt.Sprintf("Staked: %s %s\n", FormatAmount(acc.Staked), params.StakeToken))
	b.WriteString(fmt.Sprintf("Claimable now: %s %s\n", FormatAmount(pending), params.RewardToken))
	if !acc.Staked.IsZero() {
		unlock := acc.StakeTime.Add(params.LockedTime)
		if now.Before(unlock) {
			b.WriteString(fmt.Sprintf("Unlocks in: %s\n", unlock.Sub(now).Round(time.Second)))
		} else {
			b.WriteString("Unlocked ✅\n")
		}
	}
	return b.String()
}

// FormatEvent formats a committed ledger operation.
func FormatEvent(evt model.LedgerEvent, params model.PoolParams) string {
	switch evt.Kind {
	case model.OpStake:
		return fmt.Sprintf("➕ %s staked %s %s (pool: %s)",
			evt.Participant, FormatAmount(evt.Amount), params.StakeToken, FormatAmount(evt.TotalStaked))
	case model.OpUnstake:
		msg := fmt.Sprintf("➖ %s unstaked %s %s (pool: %s)",
			evt.Participant, FormatAmount(evt.Payout), params.StakeToken, FormatAmount(evt.TotalStaked))
		if evt.Forfeited != nil && !evt.Forfeited.IsZero() {
			msg += fmt.Sprintf(", %s forfeited", FormatAmount(evt.Forfeited))
		}
		return msg
	case model.OpClaim:
		return fmt.Sprintf("🎁 %s claimed %s %s", evt.Participant, FormatAmount(evt.Amount), params.RewardToken)
	case model.OpSetRewardRate:
		return fmt.Sprintf("⚙️ reward rate %s%% → %s%%", evt.OldValue, evt.NewValue)
	case model.OpSetLockedTime:
		return fmt.Sprintf("⚙️ locked time %s → %s", evt.OldValue, evt.NewValue)
	default:
		return fmt.Sprintf("%s by %s", evt.Kind, evt.Participant)
	}
}
