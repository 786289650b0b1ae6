// Package kiln provides the core of a headless content-management system:
// content types defined at runtime, content items whose field data is a
// document rather than fixed columns, draft/publish revisioning with revert,
// a content-type-aware query engine over those documents, and a pluggable
// file-storage abstraction for uploaded media.
//
// It exposes a single Service interface that orchestrates the content item
// lifecycle (create, edit, publish, revert, soft delete, restore), the query
// surface (Find/FindOne with filters, sort and pagination), and media upload
// flows (server-relayed and direct-to-cloud via presigned URLs).
// Implementations of repositories (memory, Postgres) and file stores
// (memory, filesystem, S3, Azure Blob) are provided under subpackages.
//
// # Documents
//
// Field data is stored as a Document: an order-preserving map of field
// developer-name to a dynamically typed value. Content type field
// definitions do not constrain the stored shape; they are consulted only by
// the query engine to resolve and interpret keys. Unknown keys survive
// round-trips untouched so that schema evolution never requires migrating
// historical documents.
package kiln
