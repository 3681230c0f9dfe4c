// Package services holds cross-cutting helpers shared by the stage workers
// and external provider clients: error sentinels for failure classification
// and context annotations for structured logging.
package services
