/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import "preflight/logging"

var logger = logging.Logger(logging.SourceWeb)
