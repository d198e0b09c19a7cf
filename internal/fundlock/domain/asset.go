package domain

import "strings"

// Asset identifies an asset the service can hold in custody. AssetNative is
// the native currency; every other value is a fungible token identifier.
type Asset string

// AssetNative is the native-currency asset identifier.
const AssetNative Asset = "native"

// IsNative reports whether the asset is the native currency.
func (a Asset) IsNative() bool {
	return a == AssetNative
}

// NormalizeAsset trims and lowercases an asset identifier.
func NormalizeAsset(value string) Asset {
	return Asset(strings.ToLower(strings.TrimSpace(value)))
}

// Address identifies an external account: a depositor, an unlocker, or the
// service admin. Addresses are opaque to the service; they are compared
// case-insensitively after trimming.
type Address string

// NormalizeAddress trims and lowercases an address.
func NormalizeAddress(value string) Address {
	return Address(strings.ToLower(strings.TrimSpace(value)))
}
