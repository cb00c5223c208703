package mocks

//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-hybrid/internal/backtest/engine/engine_v1/datasource DataSource
