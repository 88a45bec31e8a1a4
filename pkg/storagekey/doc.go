// Package storagekey derives the keys a Substrate-style runtime uses to
// address its storage items in the state trie.
//
// A key is the 128-bit twox hash of the pallet name, then the 128-bit twox
// hash of the item name, then each key argument transformed by the hasher the
// item declares for it:
//
//	twox128(pallet) ++ twox128(item) ++ hasher_0(arg_0) ++ ... ++ hasher_n(arg_n)
//
// The first 32 bytes are shared by every key of an item and can be used as a
// prefix to enumerate a map. All functions are pure and safe for concurrent use.
package storagekey
