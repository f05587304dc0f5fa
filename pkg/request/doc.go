// Package request describes single lightblue data operations. A Descriptor
// fixes the entity, version, operation, HTTP method, relative path, JSON body
// and query parameters of one call; descriptors are produced by Builder and
// never change afterwards. The method is derived from the operation: finds
// are GETs, deletes are DELETEs, and inserts, saves, updates and bulk
// requests are POSTs.
package request
