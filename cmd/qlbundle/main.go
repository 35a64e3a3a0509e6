// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"qlbundle.sh/cmdfactory"
	"qlbundle.sh/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := New()
	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, cmdfactory.ErrSilent) {
			fmt.Fprintln(os.Stderr, err)
		}
		log.G(ctx).Debug(err)
		os.Exit(1)
	}
}
