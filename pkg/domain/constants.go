package domain

// Field names shared by the element documents and the snapshot format.
const (
	KeyDistType     = "distType"
	KeyMean         = "mean"
	KeyCov          = "cov"
	KeySamples      = "samples"
	KeyWeights      = "weights"
	KeyQuantile     = "quantile"
	KeyLabel        = "label"
	KeyVariableType = "variableType"
	KeyFactorType   = "factorType"
	KeyVariables    = "variables"
	KeyMeasurement  = "measurement"
	KeyFactors      = "factors"
	KeyName         = "name"
	KeyDescription  = "description"
)

// Element type tags for the entities that have no user-chosen type.
const (
	TypeRobot   = "Robot"
	TypeSession = "Session"
)
