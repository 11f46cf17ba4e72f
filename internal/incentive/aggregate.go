package incentive

import "lpIncentives/internal/model"

// Fold adds contributions into a copy of acc and returns it.
func Fold(acc model.HolderAccumulator, contributions []model.Contribution) model.HolderAccumulator {
	out := acc.Clone()
	for _, c := range contributions {
		out[c.Owner] = out[c.Owner].Add(c.Credit)
	}
	return out
}

// Combine returns the per-holder sum of a and b.
func Combine(a, b model.HolderAccumulator) model.HolderAccumulator {
	out := a.Clone()
	for holder, credit := range b {
		out[holder] = out[holder].Add(credit)
	}
	return out
}
