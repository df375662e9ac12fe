package domain

// EngineType uses the integer codes of the tariff calculator.
type EngineType int

const (
	EngineGasoline EngineType = 1
	EngineDiesel   EngineType = 2
	EngineHybrid   EngineType = 3
	EngineElectric EngineType = 4
)

// CustomsFees are the three customs components in RUB as computed by the
// tariff service. A zero-valued CustomsFees must never stand in for a failed
// calculation; the calculator returns an error instead.
type CustomsFees struct {
	ClearanceRub int64 // processing fee ("sbor")
	DutyRub      int64 // duty tax ("tax")
	RecyclingRub int64 // recycling charge ("util")
}

func (f CustomsFees) TotalRub() int64 { return f.ClearanceRub + f.DutyRub + f.RecyclingRub }
