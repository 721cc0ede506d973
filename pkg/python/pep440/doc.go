// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep440 implements PEP 440 -- Version Identification and Dependency Specification.
//
// Only the parts of PEP 440 that a resolver needs are implemented: parsing and normalizing
// version identifiers, the total ordering between them, and version specifiers (minus the
// arbitrary-equality "===" operator, which is rejected at parse time).
//
// https://peps.python.org/pep-0440/
package pep440
