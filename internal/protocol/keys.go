package protocol

import "fmt"

// Key identifies a command or attribute on the wire.
//
// The enum is ordered: command keys sort before keyEndCommand, attribute keys
// after it. The accumulator relies on that ordering to reject keys that show
// up in the wrong part of a message.
type Key int

const (
	// KeyUnknown marks a name that is not in the key table. A Request whose
	// Command is KeyUnknown has not seen its command line yet.
	KeyUnknown Key = iota

	// Commands (first line only)
	KeyRequest

	keyEndCommand

	// Attributes (every following line)
	KeyIPv4
	KeyIPv6
	KeyLeaseStart
	KeyLeaseTime
	KeyErrno
	KeyErrmsg

	keyEnd
)

// keyNames is the one textual name of every key. Index is the Key value.
var keyNames = [keyEnd]string{
	KeyRequest:    "request",
	KeyIPv4:       "ipv4",
	KeyIPv6:       "ipv6",
	KeyLeaseStart: "leasestart",
	KeyLeaseTime:  "leasetime",
	KeyErrno:      "errno",
	KeyErrmsg:     "errmsg",
}

// keyTable maps wire names back to keys. Built once, never written afterwards.
var keyTable = func() map[string]Key {
	m := make(map[string]Key, len(keyNames))
	for k, name := range keyNames {
		if name != "" {
			m[name] = Key(k)
		}
	}
	return m
}()

// LookupKey returns the key whose wire name is exactly name, or KeyUnknown.
func LookupKey(name string) Key {
	if k, ok := keyTable[name]; ok {
		return k
	}
	return KeyUnknown
}

// IsCommand reports whether k may appear on the first line of a message.
func (k Key) IsCommand() bool {
	return k > KeyUnknown && k < keyEndCommand
}

// IsAttribute reports whether k may appear after the command line.
func (k Key) IsAttribute() bool {
	return k > keyEndCommand && k < keyEnd
}

// String returns the wire name of k.
func (k Key) String() string {
	if k > KeyUnknown && k < keyEnd && keyNames[k] != "" {
		return keyNames[k]
	}
	return fmt.Sprintf("Key(%d)", int(k))
}
