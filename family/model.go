package family

import "time"

// Family is the durable state of one rotation lineage. Values are immutable:
// Rotate and Revoke return updated copies. The zero value is not a valid
// family; construct through [New] or decode a stored record.
//
// Timestamps are Unix seconds so the stored JSON stays readable and Lua-side
// mutation stays trivial.
type Family struct {
	FamilyID           string `json:"family_id"`
	UserID             string `json:"user_id"`
	SessionID          string `json:"session_id"`
	CurrentFingerprint string `json:"current_fingerprint"`
	RotationCount      uint32 `json:"rotation_count"`
	Revoked            bool   `json:"revoked"`
	CreatedAt          int64  `json:"created_at"`
	RevokedAt          int64  `json:"revoked_at,omitempty"`
}

// New constructs an active family at generation zero.
func New(familyID, userID, sessionID, fingerprint string, now time.Time) Family {
	if familyID == "" || fingerprint == "" {
		panic("family: empty family id or fingerprint")
	}

	return Family{
		FamilyID:           familyID,
		UserID:             userID,
		SessionID:          sessionID,
		CurrentFingerprint: fingerprint,
		CreatedAt:          now.Unix(),
	}
}

// IsCurrent reports whether fingerprint is the single live credential of this
// family. Always false for a revoked family.
func (f Family) IsCurrent(fingerprint string) bool {
	return !f.Revoked && f.CurrentFingerprint == fingerprint
}

// IsReplay reports whether fingerprint belongs to an earlier generation of an
// active family. A revoked family is never replay — it is simply rejected.
func (f Family) IsReplay(fingerprint string) bool {
	return !f.Revoked && f.CurrentFingerprint != fingerprint
}

// Rotate returns the family advanced to the next generation. Calling Rotate
// on a revoked family is a programming error.
func (f Family) Rotate(newFingerprint string) Family {
	if f.Revoked {
		panic("family: rotate on revoked family")
	}
	if newFingerprint == "" {
		panic("family: rotate to empty fingerprint")
	}

	f.CurrentFingerprint = newFingerprint
	f.RotationCount++
	return f
}

// Revoke returns the family in its terminal state. Idempotent: revoking an
// already-revoked family returns it unchanged, preserving the original
// RevokedAt.
func (f Family) Revoke(now time.Time) Family {
	if f.Revoked {
		return f
	}

	f.Revoked = true
	f.RevokedAt = now.Unix()
	return f
}
