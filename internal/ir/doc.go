// Package ir provides the canonical value types shared by every reach package.
//
// This package contains type definitions and identity functions only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// IR the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - travel times and costs are int64
//   - Facts are comparable values; structural equality is ==
//   - All JSON tags use snake_case
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
