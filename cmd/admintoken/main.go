// cmd/admintoken/main.go: Emite un token de administrador para el back office.
// Uso: JWT_SECRET=... go run ./cmd/admintoken -usuario ana
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/config"
	"github.com/FelixSolay/TallerDeIntegracion-sub000/internal/middleware"

	"github.com/google/uuid"
)

func main() {
	usuario := flag.String("usuario", "admin", "nombre del operador")
	ttl := flag.Duration("ttl", 8*time.Hour, "vigencia del token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	token, err := middleware.FirmarToken(cfg.JWTSecret, uuid.NewString(), *usuario, middleware.RolAdministrador, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "firma:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
