package badger

import "github.com/marmos91/dittodir/pkg/directory"

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so records and their slot index live in two
// prefixed namespaces:
//
// Data Type       Prefix   Key Format                              Value Type
// ===========================================================================
// Record          "r:"     r:<id>                                  Record (JSON)
// Slot index      "k:"     k:<owner>\x00<kind>\x00<fullPath>       id (bytes)
//
// The slot index enforces one record per (owner, kind, full path) and makes
// FindOne a point lookup. Owners cannot contain NUL, so a prefix scan over
// "k:<owner>\x00" returns exactly one owner's records.

const (
	prefixRecord = "r:"
	prefixSlot   = "k:"
)

// keyRecord generates the key of the record with the given ID.
func keyRecord(id string) []byte {
	return []byte(prefixRecord + id)
}

// keySlot generates the slot index key for a record identity.
func keySlot(owner string, kind directory.Kind, fullPath string) []byte {
	return []byte(prefixSlot + owner + "\x00" + string(kind) + "\x00" + fullPath)
}

// keySlotOf generates the slot index key of rec.
func keySlotOf(rec *directory.Record) []byte {
	return keySlot(rec.Owner, rec.Kind, rec.FullPath)
}

// keyOwnerPrefix generates the prefix shared by every slot of owner.
func keyOwnerPrefix(owner string) []byte {
	return []byte(prefixSlot + owner + "\x00")
}
