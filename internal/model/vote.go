package model

// VoteOption is one row of the poll tally.
//
// The option set is fixed: rows are seeded at startup and only the count ever
// changes, always by atomic increment. Clients receive the tally as a full
// map[option]count snapshot, never as deltas.
type VoteOption struct {
	Option string `json:"option" db:"option"`
	Count  int    `json:"count"  db:"count"`
}
