// Comando token emite um JWT de operador para ambientes de desenvolvimento.
// Em produção os tokens vêm do serviço de identidade externo.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gochopp/config"
	"gochopp/internal/domain"
	"gochopp/internal/pkg/token"
)

func main() {
	var operator, role string
	flag.StringVar(&operator, "operator", "", "ID do operador (claim sub)")
	flag.StringVar(&role, "role", string(domain.RoleOperator), "papel: admin, operator ou viewer")
	flag.Parse()

	switch domain.UserRole(role) {
	case domain.RoleAdmin, domain.RoleOperator, domain.RoleViewer:
	default:
		log.Fatalf("papel desconhecido: %q", role)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	signed, err := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry).GenerateToken(operator, domain.UserRole(role))
	if err != nil {
		log.Fatalf("falha ao emitir token: %v", err)
	}
	fmt.Fprintln(os.Stdout, signed)
}
