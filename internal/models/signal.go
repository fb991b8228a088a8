package models

// Direction: направление бинарного опциона.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionCall Direction = "call"
	DirectionPut  Direction = "put"
)

func (d Direction) Tradable() bool { return d == DirectionCall || d == DirectionPut }

// Value: значение индикатора; Defined=false пока не хватает истории.
type Value struct {
	V       float64
	Defined bool
}

func Defined(v float64) Value { return Value{V: v, Defined: true} }

// Snapshot пересчитывается заново на каждой оценке, нигде не хранится.
type Snapshot struct {
	FastMA Value
	SlowMA Value
	RSI    Value
}

func (s Snapshot) Ready() bool {
	return s.FastMA.Defined && s.SlowMA.Defined && s.RSI.Defined
}

type FractalKind string

const (
	FractalPeak   FractalKind = "peak"
	FractalTrough FractalKind = "trough"
)

// Flags: 3-свечной фрактал. Пик и впадина считаются независимо.
type Flags struct {
	IsPeak   bool
	IsTrough bool
}

func (f Flags) Kinds() []FractalKind {
	var out []FractalKind
	if f.IsPeak {
		out = append(out, FractalPeak)
	}
	if f.IsTrough {
		out = append(out, FractalTrough)
	}
	return out
}

// Signal: сигнал стратегии по активу.
type Signal struct {
	Asset     string
	Direction Direction
	Price     float64
	Timestamp int64
	Reason    string
}
