// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Command advsched-bench exercises the benchmark wire codec: it encodes
// one frame per traffic class, decodes it back, and reports whether the
// round trip preserved the job size and class tag. If every round trip
// succeeds, it then pushes a small synthetic burst through the
// WSJF-drop-max admission queue (bench.ScheduleQueue) and prints the
// evictions and the release order. The DPDK ring-buffer/lcore harness
// this codec serves stays out of scope.
package main

import (
	"fmt"
	"os"

	"github.com/heistp/advsched/internal/bench"
	"github.com/heistp/advsched/internal/packet"
)

func main() {
	cases := []struct {
		class     packet.TrafficClass
		jobSizeNs uint32
	}{
		{packet.Innocent, 1000},
		{packet.Attack, 10000},
	}

	ok := true
	for _, c := range cases {
		frame := bench.EncodeFrame(c.class, c.jobSizeNs)
		got, err := bench.DecodeFrame(frame)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: decode failed: %v\n", c.class, err)
			ok = false
			continue
		}
		match := got.Class == c.class && got.JobSizeNs == c.jobSizeNs
		fmt.Printf("%s: frame_bytes=%d job_size_ns=%d psize_bytes=%d ok=%v\n",
			c.class, len(frame), got.JobSizeNs, got.PsizeBytes, match)
		ok = ok && match
	}

	if !ok {
		os.Exit(1)
	}

	demoScheduleBurst()
}

// demoScheduleBurst exercises the scheduler context's WSJF-drop-max
// admission queue over a small synthetic burst, printing which frames
// were evicted on admission and the release order.
func demoScheduleBurst() {
	burst := []bench.PacketParams{
		{Class: packet.Innocent, JobSizeNs: 1000, PsizeBytes: 1250},
		{Class: packet.Attack, JobSizeNs: 50000, PsizeBytes: 64},
		{Class: packet.Innocent, JobSizeNs: 1100, PsizeBytes: 1250},
		{Class: packet.Attack, JobSizeNs: 60000, PsizeBytes: 64},
	}

	q := bench.NewScheduleQueue(3)
	evicted := q.EnqueueBurst(burst)
	for _, e := range evicted {
		fmt.Printf("evicted: %s job_size_ns=%d\n", e.Class, e.JobSizeNs)
	}

	for _, p := range q.ScheduleBurst(q.Len()) {
		fmt.Printf("scheduled: %s job_size_ns=%d\n", p.Class, p.JobSizeNs)
	}
}
