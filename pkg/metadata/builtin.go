package metadata

import (
	"github.com/agenthands/statekeys/pkg/hasher"
)

// Builtin returns a registry of commonly queried storage items of a
// Substrate node-template runtime.
func Builtin() *Registry {
	r, err := NewRegistry(
		Entry{Pallet: "System", Item: "Account", Hashers: []hasher.Kind{hasher.Blake2_128Concat}},
		Entry{Pallet: "System", Item: "BlockHash", Hashers: []hasher.Kind{hasher.Twox64Concat}},
		Entry{Pallet: "System", Item: "Number"},
		Entry{Pallet: "System", Item: "Events"},
		Entry{Pallet: "System", Item: "EventCount"},
		Entry{Pallet: "Timestamp", Item: "Now"},
		Entry{Pallet: "Balances", Item: "TotalIssuance"},
		Entry{Pallet: "Balances", Item: "Locks", Hashers: []hasher.Kind{hasher.Blake2_128Concat}},
		Entry{Pallet: "Sudo", Item: "Key"},
		Entry{Pallet: "Staking", Item: "Bonded", Hashers: []hasher.Kind{hasher.Twox64Concat}},
		Entry{Pallet: "Staking", Item: "ErasStakers", Hashers: []hasher.Kind{hasher.Twox64Concat, hasher.Twox64Concat}},
		Entry{Pallet: "TemplateModule", Item: "Something"},
	)
	if err != nil {
		panic(err) // static table
	}
	return r
}
