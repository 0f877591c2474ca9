package rules

import "math"

// RankStatus is the XP-derived hunter rank shown on the profile. RankName is
// based on lifetime XP only and never demotes below what the thresholds say;
// XP reversals can lower it, which is intended (the ledger is symmetric).
type RankStatus struct {
	RankName  string  `json:"rank_name"`
	RankColor string  `json:"rank_color"`
	NextRank  string  `json:"next_rank"`
	CurrentXP int     `json:"current_xp"`
	TargetXP  int     `json:"target_xp"`
	Progress  float64 `json:"progress"` // 0-100 toward next rank
}

// Rank thresholds
const (
	XPRankS = 3000
	XPRankC = 1500
	XPRankD = 500
	XPRankE = 0
)

// GetRankStatus calculates the rank status for a given XP total.
func GetRankStatus(xp int) RankStatus {
	status := RankStatus{CurrentXP: xp}

	switch {
	case xp >= XPRankS:
		status.RankName = "Rank S"
		status.RankColor = "#ef4444"
		status.NextRank = "Max Level"
		status.TargetXP = XPRankS
		status.Progress = 100
	case xp >= XPRankC:
		status.RankName = "Rank C"
		status.RankColor = "#3b82f6"
		status.NextRank = "Rank S"
		status.TargetXP = XPRankS
		status.Progress = progress(xp, XPRankC, XPRankS)
	case xp >= XPRankD:
		status.RankName = "Rank D"
		status.RankColor = "#22c55e"
		status.NextRank = "Rank C"
		status.TargetXP = XPRankC
		status.Progress = progress(xp, XPRankD, XPRankC)
	default:
		status.RankName = "Rank E"
		status.RankColor = "#94a3b8"
		status.NextRank = "Rank D"
		status.TargetXP = XPRankD
		status.Progress = progress(xp, XPRankE, XPRankD)
	}

	return status
}

func progress(current, floor, target int) float64 {
	if target <= floor {
		return 100
	}
	p := float64(current-floor) / float64(target-floor) * 100
	return math.Round(p*10) / 10
}
