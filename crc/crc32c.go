// Package crc implements the ext4-style CRC32C wrap used throughout the
// on-disk metadata-checksum feature: superblock, group descriptors,
// bitmaps, inodes, and extent tree tail records.
package crc

import "hash/crc32"

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Ext4 computes ext4's wrapped CRC32C: crc = ~crc32c(seed ^ ~0, buf).
// This matches the upstream e2fsprogs convention (lib/ext2fs/csum.c) that
// every ext4 checksum field ultimately derives from.
func Ext4(seed uint32, buf []byte) uint32 {
	seeded := seed ^ ^uint32(0)
	return ^crc32.Update(seeded, castagnoliTable, buf)
}
