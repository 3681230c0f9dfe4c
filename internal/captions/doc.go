// Package captions converts character-level speech alignment into one-word
// karaoke captions rendered as an ASS subtitle script. The package is pure
// computation; rendering the script onto video belongs to the media layer.
package captions
