package goRefresh

// IssueResult is returned by issuance: the opaque refresh credential and the
// lineage it starts, at generation zero.
type IssueResult struct {
	RefreshToken  string
	FamilyID      string
	UserID        string
	SessionID     string
	RotationCount uint32
}

// RotateResult is returned by a successful rotation: the successor credential
// and where the lineage now stands.
type RotateResult struct {
	RefreshToken  string
	FamilyID      string
	UserID        string
	SessionID     string
	RotationCount uint32
}

// PairResult bundles a refresh credential with a freshly minted access token.
type PairResult struct {
	RefreshToken  string
	AccessToken   string
	AccessJTI     string
	FamilyID      string
	UserID        string
	SessionID     string
	RotationCount uint32
}
