package database

import (
	"database/sql"
	"fmt"
	"time"

	// Driver pq para PostgreSQL
	_ "github.com/lib/pq"
)

// NewPostgresDB inicializa e configura o pool de conexões com o PostgreSQL.
// Retorna a conexão *sql.DB pronta para uso.
func NewPostgresDB(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir a conexão com o DB: %w", err)
	}

	// Garante que as credenciais e o servidor estão corretos
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao realizar o ping inicial no DB: %w", err)
	}

	// Connection pool. Cada venda segura uma conexão durante toda a transação FIFO,
	// então MaxOpenConns limita também quantas alocações rodam em paralelo.

	// MaxOpenConns: teto de conexões abertas; ajuste ao max_connections do servidor.
	db.SetMaxOpenConns(25)

	// MaxIdleConns: conexões ociosas mantidas no pool. Valor baixo demais
	// faz o pool abrir e fechar conexões a cada rajada de requisições.
	db.SetMaxIdleConns(10)

	// ConnMaxLifetime: recicla conexões antigas (balanceadores e firewalls derrubam conexões longas).
	db.SetConnMaxLifetime(5 * time.Minute)

	// ConnMaxIdleTime: fecha conexões ociosas há mais de 2 minutos.
	db.SetConnMaxIdleTime(2 * time.Minute)

	return db, nil
}
