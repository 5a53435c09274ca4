package main

import (
	"github.com/dustin/go-humanize"

	"github.com/joshuapare/dfseg/dframe"
)

// segmentInfo is the printable description of a segment.
type segmentInfo struct {
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	Kind          string   `json:"kind"`
	Populated     bool     `json:"populated"`
	Size          uint64   `json:"size"`
	Dims          [2]int64 `json:"dims"`
	Tier          string   `json:"tier"`
	RegionLength  int64    `json:"region_length"`
	PayloadOffset int64    `json:"payload_offset"`
}

func describe(seg *dframe.Segment) segmentInfo {
	h := seg.Header()
	return segmentInfo{
		Name:          seg.Name(),
		Role:          seg.Role().String(),
		Kind:          h.Kind.String(),
		Populated:     h.Populated(),
		Size:          h.Size,
		Dims:          h.Dims,
		Tier:          seg.Tier().String(),
		RegionLength:  seg.Len(),
		PayloadOffset: seg.Layout().PayloadOffset(),
	}
}

func printSegment(seg *dframe.Segment) error {
	info := describe(seg)
	if jsonOut {
		return printJSON(info)
	}
	printInfo("\nSegment Information:\n")
	printInfo("  Name: %s\n", info.Name)
	printInfo("  Role: %s\n", info.Role)
	printInfo("  Kind: %s\n", info.Kind)
	printInfo("  Populated: %t\n", info.Populated)
	printInfo("  Payload: %s (%d bytes)\n", humanize.IBytes(info.Size), info.Size)
	printInfo("  Dims: %d x %d\n", info.Dims[0], info.Dims[1])
	printInfo("  Tier: %s\n", info.Tier)
	if info.RegionLength > 0 {
		printInfo("  Region: %s, payload at offset %d\n", humanize.IBytes(uint64(info.RegionLength)), info.PayloadOffset)
	}
	return nil
}
