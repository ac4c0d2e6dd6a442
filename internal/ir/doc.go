// Package ir provides the typed value model for Infobase.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the value model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Datatype is a closed enumeration; unknown abstract types map to Ref
//   - Value is a sealed union; lists are an explicit wrapper with one datatype
//   - Lists never nest and are always homogeneous
//   - Ref values carry keys only, never embedded records
package ir
