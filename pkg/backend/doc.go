// Package backend is the client of the pathway prediction service.
//
// The service queues retrosynthesis jobs, reports their status and serves
// the predicted pathways of completed jobs as graph JSON (decoded into
// [pathway.Graph]). [Client] wraps its REST endpoints:
//
//	GET    /jobs                       ListJobs
//	GET    /jobs/{running,completed,failed}  ListJobsByStatus
//	GET    /jobs/{id}                  GetJob
//	GET    /jobs/{id}/status           JobStatus
//	DELETE /jobs/{id}                  DeleteJob
//	GET    /jobs/{id}/results          ListResults
//	GET    /jobs/{id}/results/{rid}    GetResult
//	POST   /jobs                       SubmitJob
//	POST   /upload_model               UploadModel
//	POST   /upload_rules               UploadRules
//
// Every failure is returned as a coded error from pkg/errors: transport
// problems and non-2xx responses carry NETWORK_ERROR, 404 responses carry
// NOT_FOUND. GET requests are retried on transport errors and 5xx
// responses; mutating requests are sent once.
//
// [SortResults] orders result listings by several keys at once.
package backend
