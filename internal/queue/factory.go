// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package queue

import (
	"fmt"

	"github.com/heistp/advsched/internal/simerr"
)

// Options carries the parameters needed to construct queue variants
// that take configuration beyond their zero value.
type Options struct {
	// HFFSNumBuckets and HFFSScaleFactor configure the hffs policy's
	// bucketing of job-size/packet-size ratios.
	HFFSNumBuckets  int
	HFFSScaleFactor float64
}

// New constructs the Queue implementation named by policy, mirroring
// the original design's if/else-if dispatch over policy name strings.
func New(policy string, opt Options) (Queue, error) {
	switch policy {
	case "fcfs":
		return NewFCFS(), nil
	case "sjf":
		return NewSJF(), nil
	case "wsjf":
		return NewWSJF(), nil
	case "sjf_inorder":
		return NewSJFInorder(), nil
	case "wsjf_inorder":
		return NewWSJFInorder(), nil
	case "fq":
		return NewFQ(), nil
	case "hffs":
		nb := opt.HFFSNumBuckets
		if nb <= 0 {
			nb = 1024
		}
		sf := opt.HFFSScaleFactor
		if sf <= 0 {
			sf = 1.0
		}
		return NewHFFS(nb, sf), nil
	default:
		return nil, &simerr.ConfigError{
			Message: fmt.Sprintf("unknown queueing policy: %s", policy),
		}
	}
}
