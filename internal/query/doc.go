// Package query provides the listing engine shared by every Store backend:
// a flat query description, a small sealed predicate IR, and the free
// functions that filter and paginate recency-ordered results.
//
// Listing semantics:
//
//   - Results are ordered most-recently-written first.
//   - Filters are exact matches. Type matches a record's "type"; Name and
//     Value together match one property; Key, Author and Kind match the
//     corresponding record fields where the listing has them.
//   - A nil Limit means DefaultLimit (100). A negative Limit means no limit.
//     Zero or a positive N returns at most N records.
//   - Offset skips that many matches before the limit is applied.
//
// Backends evaluate predicates in memory with Match or compile them to SQL
// (see package querysql). Predicate is sealed, so both evaluators can
// switch over it exhaustively.
package query
