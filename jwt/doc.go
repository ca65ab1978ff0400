// Package jwt issues and validates the short-lived access tokens minted
// alongside refresh rotation. Signing is delegated to a [signer.Signer];
// this package never holds signing key material, only verification keys.
package jwt
