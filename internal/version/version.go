/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package version carries the application version string.
package version

// Version may be overridden at build time:
//
//	go build -ldflags "-X github.com/taxmusa/Auto-webtoon/internal/version.Version=v1.2.3"
var Version = "v0.1.0-dev"

// String returns the human-readable version.
func String() string { return Version }
