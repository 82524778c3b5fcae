package models

import (
	"errors"
)

var (
	ErrNoOptions          = errors.New("no initialized model options")
	ErrTargetLenMismatch  = errors.New("target length does not match number of examples")
	ErrNoTrainingMatrix   = errors.New("no training matrix")
	ErrNoTargetMatrix     = errors.New("no target matrix")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrUnderdetermined    = errors.New("fewer training examples than coefficients")
	ErrSingularDesign     = errors.New("design matrix is rank deficient")

	ErrNoTrainingData   = errors.New("no training examples")
	ErrInputShape       = errors.New("input shape does not match the trained model")
	ErrNonFiniteInput   = errors.New("training data contains a non-finite value")
	ErrUntrained        = errors.New("model has not been trained yet")
	ErrNonFiniteLoss    = errors.New("training loss is no longer finite")
	ErrUnknownLayer     = errors.New("unknown layer type")
	ErrUnknownOptimizer = errors.New("unknown optimizer")
	ErrUnknownLoss      = errors.New("unknown loss")

	// ErrModelInference marks any failure raised by a model while fitting or predicting
	ErrModelInference = errors.New("model inference failed")
)
