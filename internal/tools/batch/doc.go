// Package batch parses id-list arguments and runs per-item operations,
// reporting partial failures item by item.
package batch
