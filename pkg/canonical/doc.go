// Package canonical derives the well-known data path of an OSD
// ({root}/{cluster}-{id}) and converges a directory-backed OSD onto it with
// a symlink.
package canonical
