//go:generate mockgen -source=../failure_journal.go -destination=./mock_failure_journal.go -package=mocks
//go:generate mockgen -source=../logger.go          -destination=./mock_logger.go          -package=mocks
//go:generate mockgen -source=../engine.go          -destination=./mock_engine.go          -package=mocks

package mocks
