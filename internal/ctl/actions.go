package ctl

// Indirection layer to allow stubbing in tests

var (
	fnTrain             = train
	fnGenerateContainer = generateContainer
	fnRenderDeployment  = renderDeployment
	fnPredict           = predict
	fnSmoke             = smoke
	fnStartDaemon       = startDaemon
)
