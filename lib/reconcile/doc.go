// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package reconcile applies recorded diffs to an identity-keyed
// registry of trackables, the way a live sensing backend would report
// them.
//
// A [Registry] enforces the identity protocol: an identity is added
// once, updated only while tracked, removed once, and never comes
// back. A diff that breaks any rule is rejected as a whole and the
// registry is left unchanged.
package reconcile
