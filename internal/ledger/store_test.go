package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-hybrid/internal/logger"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/stretchr/testify/suite"
)

// StoreTestSuite is a test suite for Store
type StoreTestSuite struct {
	suite.Suite
	store *Store
	start time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

// SetupSuite runs once before all tests in the suite
func (suite *StoreTestSuite) SetupSuite() {
	store, err := NewStore(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.store = store
	suite.start = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
}

// TearDownSuite runs once after all tests in the suite
func (suite *StoreTestSuite) TearDownSuite() {
	if suite.store != nil {
		suite.store.Close()
	}
}

// TearDownTest runs after each test
func (suite *StoreTestSuite) TearDownTest() {
	suite.Require().NoError(suite.store.Cleanup())
}

func (suite *StoreTestSuite) ledger() ([]types.Fill, []types.Trade) {
	entry := suite.start
	exit := suite.start.Add(3 * time.Hour)

	fills := []types.Fill{
		{Time: entry, Index: 0, Side: types.PurchaseTypeBuy, PositionSide: types.PositionSideLong, Quantity: 0.05, Price: 100, Reason: types.FillReasonEntry},
		{Time: exit, Index: 3, Side: types.PurchaseTypeSell, PositionSide: types.PositionSideLong, Quantity: 0.05, Price: 99.7, Reason: string(types.ExitReasonStopLoss)},
	}

	trades := []types.Trade{
		{
			ID:         1,
			Side:       types.PositionSideLong,
			EntryTime:  entry,
			ExitTime:   exit,
			EntryIndex: 0,
			ExitIndex:  3,
			EntryPrice: 100,
			ExitPrice:  99.7,
			Stake:      1,
			Quantity:   0.05,
			PnL:        -0.015,
			ExitReason: types.ExitReasonStopLoss,
		},
	}

	return fills, trades
}

func (suite *StoreTestSuite) TestSaveAndQuery() {
	fills, trades := suite.ledger()
	suite.Require().NoError(suite.store.Save("run-1", fills, trades))

	storedTrades, err := suite.store.Trades("run-1")
	suite.Require().NoError(err)
	suite.Require().Len(storedTrades, 1)
	suite.Equal(trades[0].ID, storedTrades[0].ID)
	suite.Equal(types.PositionSideLong, storedTrades[0].Side)
	suite.Equal(types.ExitReasonStopLoss, storedTrades[0].ExitReason)
	suite.Equal(-0.015, storedTrades[0].PnL)
	suite.True(trades[0].ExitTime.Equal(storedTrades[0].ExitTime))

	storedFills, err := suite.store.Fills("run-1")
	suite.Require().NoError(err)
	suite.Require().Len(storedFills, 2)
	suite.Equal(types.PurchaseTypeBuy, storedFills[0].Side)
	suite.Equal(types.FillReasonEntry, storedFills[0].Reason)
	suite.Equal(3, storedFills[1].Index)
}

func (suite *StoreTestSuite) TestRunsAreIsolated() {
	fills, trades := suite.ledger()
	suite.Require().NoError(suite.store.Save("run-1", fills, trades))
	suite.Require().NoError(suite.store.Save("run-2", nil, nil))

	storedTrades, err := suite.store.Trades("run-2")
	suite.Require().NoError(err)
	suite.Empty(storedTrades)

	storedFills, err := suite.store.Fills("run-2")
	suite.Require().NoError(err)
	suite.Empty(storedFills)
}

func (suite *StoreTestSuite) TestWrite() {
	fills, trades := suite.ledger()
	suite.Require().NoError(suite.store.Save("run-1", fills, trades))

	dir := filepath.Join(suite.T().TempDir(), "results")
	tradesPath, fillsPath, err := suite.store.Write("run-1", dir)
	suite.Require().NoError(err)

	suite.Equal(filepath.Join(dir, "trades.parquet"), tradesPath)
	suite.Equal(filepath.Join(dir, "fills.parquet"), fillsPath)

	for _, path := range []string{tradesPath, fillsPath} {
		info, err := os.Stat(path)
		suite.Require().NoError(err)
		suite.Greater(info.Size(), int64(0))
	}

	var count int
	err = suite.store.db.QueryRow("SELECT COUNT(*) FROM read_parquet('" + tradesPath + "')").Scan(&count)
	suite.Require().NoError(err)
	suite.Equal(1, count)
}

func (suite *StoreTestSuite) TestWriteQuotedPaths() {
	fills, trades := suite.ledger()
	suite.Require().NoError(suite.store.Save("o'hare-run", fills, trades))

	dir := filepath.Join(suite.T().TempDir(), "O'Hare results")
	tradesPath, fillsPath, err := suite.store.Write("o'hare-run", dir)
	suite.Require().NoError(err)
	suite.FileExists(tradesPath)
	suite.FileExists(fillsPath)

	var count int
	err = suite.store.db.QueryRow("SELECT COUNT(*) FROM read_parquet('" + quoteLiteral(fillsPath) + "')").Scan(&count)
	suite.Require().NoError(err)
	suite.Equal(2, count)
}
