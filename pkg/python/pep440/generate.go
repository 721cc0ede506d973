// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep440

import (
	"math/rand"
	"reflect"
	"testing/quick"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// The generators in this file let testing/quick produce arbitrary versions and clauses.  Segments
// are kept small so that random pairs collide often enough to exercise equality.

func randBool(rand *rand.Rand) bool {
	return rand.Intn(2) == 1
}

func randSeg(rand *rand.Rand) int {
	return rand.Intn(12)
}

func randOptSeg(rand *rand.Rand) *int {
	if !randBool(rand) {
		return nil
	}
	n := randSeg(rand)
	return &n
}

func (ver PublicVersion) generate(rand *rand.Rand, size int) PublicVersion {
	if rand.Intn(8) == 0 {
		ver.Epoch = 1
	}
	n := 1 + rand.Intn(3)
	if size < n {
		n = size + 1
	}
	ver.Release = make([]int, n)
	for i := range ver.Release {
		ver.Release[i] = randSeg(rand)
	}
	if rand.Intn(4) == 0 {
		ver.Pre = &PreRelease{
			L: []string{"a", "b", "rc"}[rand.Intn(3)],
			N: randSeg(rand),
		}
	}
	if rand.Intn(4) == 0 {
		ver.Post = randOptSeg(rand)
	}
	if rand.Intn(4) == 0 {
		ver.Dev = randOptSeg(rand)
	}
	return ver
}

// Generate implements testing/quick.Generator.
func (ver PublicVersion) Generate(rand *rand.Rand, size int) reflect.Value {
	return reflect.ValueOf(ver.generate(rand, size))
}

func (ver LocalVersion) generate(rand *rand.Rand, size int) LocalVersion {
	ver.PublicVersion = ver.PublicVersion.generate(rand, size)
	if rand.Intn(6) == 0 {
		ver.Local = make([]intstr.IntOrString, 1+rand.Intn(2))
		for i := range ver.Local {
			if randBool(rand) {
				ver.Local[i] = intstr.FromInt(randSeg(rand))
			} else {
				ver.Local[i] = intstr.FromString([]string{"ubuntu", "deb", "local"}[rand.Intn(3)])
			}
		}
	}
	return ver
}

// Generate implements testing/quick.Generator.
func (ver LocalVersion) Generate(rand *rand.Rand, size int) reflect.Value {
	return reflect.ValueOf(ver.generate(rand, size))
}

//nolint:exhaustivestruct
var _ quick.Generator = LocalVersion{}

// Generate implements testing/quick.Generator.
func (op CmpOp) Generate(rand *rand.Rand, _ int) reflect.Value {
	return reflect.ValueOf(CmpOp(rand.Intn(int(_CmpOpEnd))))
}
