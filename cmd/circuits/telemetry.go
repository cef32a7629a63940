// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"net/http"

	"github.com/AleutianAI/circuits/services/solver/telemetry"
)

// metricsAddr is where the Prometheus endpoint listens when the prometheus
// metric exporter is selected.
const metricsAddr = ":9464"

// initTelemetry boots the otel stack and, for the Prometheus exporter,
// serves /metrics in the background for the lifetime of the process.
func initTelemetry(ctx context.Context) (func(context.Context) error, error) {
	tel, err := telemetry.Init(ctx, config.Telemetry)
	if err != nil {
		return nil, err
	}

	if handler := tel.MetricsHandler(); handler != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		go func() {
			// Best effort; the demo keeps running without metrics if the
			// port is taken.
			_ = http.ListenAndServe(metricsAddr, mux)
		}()
	}

	return tel.Shutdown, nil
}
