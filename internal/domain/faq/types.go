package faq

// RowID is the primary key of a FAQ row in the relational store.
type RowID int64

// VectorID identifies an embedding inside the vector index. It is assigned at
// index-build time and only maps to a RowID through the MappingStore.
type VectorID int64

// Record is one scraped FAQ entry.
type Record struct {
	ID       RowID  `json:"id"`
	Category string `json:"category"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Neighbor is a single nearest-neighbour hit using squared L2 distance.
type Neighbor struct {
	ID       VectorID
	Distance float32
}

// Candidate is a record that survived the similarity threshold.
type Candidate struct {
	RowID    RowID
	Category string
	Question string
	Answer   string
	Distance float32
}

// Message is a chat message passed to the answer generator.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// TrendingQuery represents a frequently asked question.
type TrendingQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}
