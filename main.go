// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/chambape/ubica/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
