package appchain

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SqlLiteDatabase struct {
	db *sql.DB
	mu sync.Mutex
}

var _ Database = &SqlLiteDatabase{}

func NewSqlLiteDatabase(path string) (db *SqlLiteDatabase, err error) {
	log.Info().Msgf("opening sqlite db at: '%s'", path)

	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		err = errors.Wrap(err, "failed to open database")
		return
	}

	if err = sqldb.Ping(); err != nil {
		_ = sqldb.Close()
		err = errors.Wrap(err, "failed to ping database")
		return
	}

	db = &SqlLiteDatabase{db: sqldb}
	if err = db.initTables(); err != nil {
		_ = sqldb.Close()
		err = errors.Wrap(err, "failed to init tables")
		return
	}

	return
}

func (s *SqlLiteDatabase) initTables() (err error) {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS deployment (
			address TEXT PRIMARY KEY,
			tx_hash TEXT NOT NULL,
			block_number INTEGER NOT NULL,
			deployer TEXT NOT NULL DEFAULT '',
			abi TEXT NOT NULL DEFAULT '',
			abi_stored INTEGER NOT NULL DEFAULT 0,
			abi_tx_hash TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS receipt (
			hash TEXT PRIMARY KEY,
			block_number INTEGER NOT NULL,
			contract_address TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deployment_tx_hash ON deployment(tx_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_receipt_block_number ON receipt(block_number)`,
	}

	for i, query := range queries {
		_, err = s.db.Exec(query)
		if err != nil {
			err = errors.Wrapf(err, "failed to execute query: %d", i)
			return
		}
	}

	return
}

func (s *SqlLiteDatabase) Close() error {
	return errors.WithStack(s.db.Close())
}

func (s *SqlLiteDatabase) AddDeployment(d Deployment) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO deployment
			(address, tx_hash, block_number, deployer, abi, abi_stored, abi_tx_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.ToLower(d.Address),
		d.TxHash,
		d.BlockNumber,
		d.Deployer,
		d.Abi,
		d.AbiStored,
		d.AbiTxHash,
		d.CreatedAt,
	)

	return errors.WithStack(err)
}

func (s *SqlLiteDatabase) GetDeployment(address string) (d Deployment, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.QueryRow(`
		SELECT address, tx_hash, block_number, deployer, abi, abi_stored, abi_tx_hash, created_at
		FROM deployment
		WHERE address = ?`,
		strings.ToLower(address),
	).Scan(&d.Address, &d.TxHash, &d.BlockNumber, &d.Deployer, &d.Abi, &d.AbiStored, &d.AbiTxHash, &d.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		err = errors.Wrapf(ErrDeploymentNotFound, "no deployment at %s", address)
		return
	}
	err = errors.WithStack(err)

	return
}

func (s *SqlLiteDatabase) ListDeployments() (deployments []Deployment, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT address, tx_hash, block_number, deployer, abi, abi_stored, abi_tx_hash, created_at
		FROM deployment
		ORDER BY block_number ASC, address ASC`)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	deployments = make([]Deployment, 0)
	for rows.Next() {
		var d Deployment
		if err = rows.Scan(&d.Address, &d.TxHash, &d.BlockNumber, &d.Deployer, &d.Abi, &d.AbiStored, &d.AbiTxHash, &d.CreatedAt); err != nil {
			return nil, errors.WithStack(err)
		}
		deployments = append(deployments, d)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return
}

// SetAbiStored marks the abi of address as published. A contract that was not
// deployed through this store gets a bare row so the publication is still
// recorded.
func (s *SqlLiteDatabase) SetAbiStored(address, txHash string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.WithStack(err)
	}
	defer tx.Rollback()

	address = strings.ToLower(address)

	res, err := tx.Exec("UPDATE deployment SET abi_stored = 1, abi_tx_hash = ? WHERE address = ?", txHash, address)
	if err != nil {
		return errors.WithStack(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}

	if affected == 0 {
		_, err = tx.Exec(`
			INSERT INTO deployment (address, tx_hash, block_number, abi_stored, abi_tx_hash, created_at)
			VALUES (?, '', 0, 1, ?, ?)`,
			address, txHash, time.Now().UTC())
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return errors.WithStack(tx.Commit())
}

func (s *SqlLiteDatabase) AddReceipt(ref ReceiptRef) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO receipt (hash, block_number, contract_address, error_message)
		VALUES (?, ?, ?, ?)`,
		strings.ToLower(ref.Hash), ref.BlockNumber, ref.ContractAddress, ref.ErrorMessage)

	return errors.WithStack(err)
}

func (s *SqlLiteDatabase) GetReceipt(hash string) (ref ReceiptRef, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.QueryRow(
		"SELECT hash, block_number, contract_address, error_message FROM receipt WHERE hash = ?",
		strings.ToLower(hash),
	).Scan(&ref.Hash, &ref.BlockNumber, &ref.ContractAddress, &ref.ErrorMessage)

	if errors.Is(err, sql.ErrNoRows) {
		err = errors.Wrapf(ErrReceiptNotFound, "receipt not found by hash %s", hash)
		return
	}
	err = errors.WithStack(err)

	return
}
