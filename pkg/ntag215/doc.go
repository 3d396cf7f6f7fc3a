/*
Package ntag215 manipulates 540-byte NTAG215 dumps of amiibo figures.

It provides:
  - The fixed layout of the on-wire (packed) and oracle-side (logical) images
  - Derived field arithmetic (BCC0, position byte, password, ack)
  - Raw binary and Flipper NFC text adapters
  - The mutate (new UID, same game data) and generate (fresh dump from a
    character id) pipelines
  - A validator for single files and batches
  - A PC/SC reader for dumping physical tags

Signing and encryption are delegated to an Oracle. The package never
implements the keyed transform; Amiitool adapts an external executable.

# Packed Layout

	Offset   Size  Field
	0        8     UID block: u0 u1 u2 BCC0 u3 u4 u5 u6
	8        1     position byte (BCC1) = p[4]^p[5]^p[6]^p[7]
	9        8     magic block A (48 0F E0 F1 10 FF EE A5)
	84       8     character id
	532      4     password
	536      2     ack (80 80)

# Logical Layout

	Offset   Size  Field
	9        8     magic block A (not preserved by encode)
	468      8     UID block
	476      8     character id
	520      20    magic block B (dynamic lock, CFG0, CFG1, password, ack)

# Derived Fields

	BCC0     = 0x88 ^ u0 ^ u1 ^ u2
	PWD[0]   = 0xAA ^ u1 ^ u3
	PWD[1]   = 0x55 ^ u2 ^ u4
	PWD[2]   = 0xAA ^ u3 ^ u5
	PWD[3]   = 0x55 ^ u4 ^ u6

where u is the 7-byte UID (the BCC0 slot skipped).

# Invariants

Every image written by a pipeline is 540 bytes, carries a BCC0 matching
its first three bytes, a matching position byte and password, and the 80 80
ack. Fields the oracle is not trusted to carry are re-asserted right after
encode and logged when they had to be repaired.

# Errors

Every failure is an *Error with a Kind. Use IsHMACError, IsSizeError and
friends rather than comparing strings. Validation never fails: per-file
problems become invalid reports.
*/
package ntag215
