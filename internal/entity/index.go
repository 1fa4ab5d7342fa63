package entity

// IndexState is the state of a bot's vector index
type IndexState int

const (
	IndexStateNotIndexed IndexState = iota
	IndexStateReady
	IndexStateLoadError
)

func (s IndexState) String() string {
	switch s {
	case IndexStateReady:
		return "ready"
	case IndexStateNotIndexed:
		return "not_indexed"
	case IndexStateLoadError:
		return "load_error"
	default:
		return "unknown"
	}
}

type Chunk struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

type SearchResult struct {
	Chunk
	Score float32 `json:"score"`
}
