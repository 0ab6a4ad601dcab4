// Package serialization implements the native .tndm container for Tandem
// checkpoints.
//
// A .tndm file holds a set of named tensors plus an embedded JSON training
// state, laid out so that tensor payloads can be memory mapped directly:
//
//	Format Structure:
//	  [4 bytes:  Magic "TNDM"]
//	  [4 bytes:  Version (uint32 LE)]
//	  [8 bytes:  Header Size (uint64 LE)]
//	  [Header:   JSON metadata]
//	  [Padding:  zeros to the next 64-byte boundary]
//	  [Tensors:  raw little-endian payloads, each 64-byte aligned]
//	  [Trailer:  SHA-256 over every preceding byte]
//
// The JSON header carries the tensor directory (name, dtype, shape, offset,
// size), an optional training_state document, and free-form string metadata.
// Offsets are relative to the start of the tensor section.
//
// Writes go through a temp file in the target directory followed by a
// rename, so a crash mid-save never leaves a truncated checkpoint behind.
// Reads memory-map the file on unix and fall back to a plain read
// elsewhere; either way the checksum trailer is verified before any tensor
// is handed out.
//
// Example usage:
//
//	// Save a mixed precision checkpoint
//	dict, err := optimizer.StateDict()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := serialization.SaveCheckpoint("ckpt.tndm", dict, nil); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Resume from it
//	dict, err = serialization.LoadCheckpoint("ckpt.tndm", backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := optimizer.LoadStateDict(dict); err != nil {
//	    log.Fatal(err)
//	}
package serialization
