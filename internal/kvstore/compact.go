package kvstore

// Stage один этап аварийной очистки значения при переполнении квоты.
type Stage struct {
	Name  string
	Apply func(raw []byte) ([]byte, error)
}

// Compactor политика очистки для конкретного ключа. Этапы применяются
// по порядку, после каждого запись повторяется. Если ни один этап не помог,
// ключ перезаписывается значением Empty.
type Compactor interface {
	Stages() []Stage
	Empty() []byte
}

// CompactorFunc собирает Compactor из набора этапов и пустого значения.
type CompactorFunc struct {
	StageList  []Stage
	EmptyValue []byte
}

func (c CompactorFunc) Stages() []Stage { return c.StageList }

func (c CompactorFunc) Empty() []byte { return c.EmptyValue }
