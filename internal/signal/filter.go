package signal

// The three filter types are deliberately kept separate even though their
// shapes overlap: each narrows exactly one record kind and must not be
// cross-used. Every set field narrows the result set by equality; Types
// narrows by membership. Zero values mean "any".

// Filter selects signals.
type Filter struct {
	Types       []Type
	TargetKind  TargetKind
	TargetID    string
	SubjectKind SubjectKind
	SubjectID   string
	Detail      Detail
}

// SettingsFilter selects notification settings records.
type SettingsFilter struct {
	Types     []Type
	OwnerKind TargetKind
	OwnerID   string
}

// SentRecordFilter selects sent records. For dedup lookups all key fields
// are set, which matches at most one record.
type SentRecordFilter struct {
	Types       []Type
	TargetKind  TargetKind
	TargetID    string
	SubjectKind SubjectKind
	SubjectID   string
	Detail      Detail
}

// Page is an offset/limit window over a signal listing, newest first.
type Page struct {
	Offset int
	Limit  int
}
