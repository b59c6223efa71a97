// Package frame implements the MR60BHA2 radar wire protocol.
package frame

// The radar streams frames over a UART with no buffering guarantees,
// so frames are reassembled one byte at a time. Every frame starts with
// a fixed marker and carries two checksums: one over the 7 header bytes
// and one over the payload. Both are the complement of the XOR of the
// covered bytes.
//
// Header fields are big-endian. Payload fields are little-endian and
// are decoded by package dispatch.
//
// Producer: MR60BHA2 firmware
// Consumer: radar driver
