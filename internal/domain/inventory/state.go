package inventory

import "github.com/hectormarrufor/WR-sub004/internal/domain/errs"

// allowed is the closed transition graph for serialized units. The only
// backward edge, installed -> in_warehouse, is the "registration error"
// removal; worn units retire and never return to stock.
var allowed = map[UnitState]map[UnitState]bool{
	UnitInWarehouse: {UnitAssigned: true},
	UnitAssigned:    {UnitInstalled: true},
	UnitInstalled:   {UnitInWarehouse: true, UnitRetired: true},
	UnitRetired:     {},
}

func CanTransition(from, to UnitState) bool {
	return allowed[from][to]
}

// Transition moves a unit along the graph, maintaining the holder invariant:
// asset/subsystem references are set iff the unit is assigned or installed.
// On rejection the unit is left untouched.
func Transition(u *SerializedUnit, to UnitState, assetID, subsystemID *int64) error {
	if !CanTransition(u.State, to) {
		return &errs.TransitionError{UnitID: u.ID, From: string(u.State), To: string(to)}
	}
	switch to {
	case UnitAssigned, UnitInstalled:
		if assetID == nil || subsystemID == nil {
			return &errs.TransitionError{UnitID: u.ID, From: string(u.State), To: string(to)}
		}
		u.AssetID = assetID
		u.SubsystemInstanceID = subsystemID
	default:
		u.AssetID = nil
		u.SubsystemInstanceID = nil
	}
	u.State = to
	return nil
}
