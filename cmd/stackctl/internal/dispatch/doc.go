// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package dispatch turns an operator token into an ordered set of container
runtime calls for the pipeline stack (collector, scheduler, worker, store).

# Overview

A single invocation flows through three parts:

  - Registry: maps the token to an ActionDescriptor (exact name, or the
    single "logs-<service>" prefix rule)
  - EnvironmentResolver: substitutes the enumerated store bindings
    (STORE_USER, STORE_DB) into command lines
  - Translator: issues each RuntimeCall against a Runtime in order and
    stops at the first failure

Dispatcher composes the three:

	d := dispatch.New(executor,
	    dispatch.WithLogger(logger),
	    dispatch.WithTracer(tracer),
	)
	code, err := d.Dispatch(ctx, dispatch.Request{Token: "restart-scheduler"})

# Vocabulary

	deploy             build-and-start      whole stack
	logs               follow-logs          whole stack
	logs-<service>     follow-logs          {<service>}
	restart-scheduler  restart-subset       {scheduler, worker}
	shell-collector    exec-in-service      {collector}
	shell-db           exec-in-service      {postgres}
	migrate            run-once-in-service  {collector}
	ps                 list-status          whole stack
	stop               stop                 whole stack
	clean              stop-and-purge       whole stack

The stop-and-purge verb is reachable only through "clean".

# State

Nothing is retained between invocations. Registry, resolver and translator
are built per process and carry no mutable state after construction; which
services are running is known only to the container runtime.
*/
package dispatch
