// Package manager owns the prediction services mounted by the daemon: their
// lifecycle, admission and accounting. It is split by concern:
//
//   - manager.go: Manager type, constructor, simple getters.
//   - config.go: ManagerConfig, ServiceSpec and package defaults.
//   - types.go: service state.
//   - errors.go: typed errors (IsTooBusy, IsServiceNotFound, IsNotReady) and StatusOf.
//   - load.go: building predictors from bundles or hosted models; Start.
//   - compose.go: one service per bundle in a directory.
//   - admission.go: per-service queue and worker slots.
//   - predict.go: the Predict entry point, metrics and journal hooks.
//   - reload.go, watch.go: rebuilding services when their sources change.
//   - unload.go: graceful drain and removal.
//   - status_report.go: Status/ListServices views.
//
// The HTTP layer depends only on the public methods.
package manager
