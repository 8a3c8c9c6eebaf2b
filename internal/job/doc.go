// Package job models one variant build as it moves through the pipeline.
//
// A Job carries the metadata a variant publishes, the artifact the next stage
// consumes and every intermediate file produced along the way so the workflow
// can delete them once the variant succeeds and leave them for diagnosis when
// it fails.
package job
