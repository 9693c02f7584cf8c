// Command tokengen signs consultation tokens for local testing against the
// relay. It reads the signing secret from the same config as the server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/immxrtalbeast/medsignal/internal/config"
	"github.com/immxrtalbeast/medsignal/internal/service"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	typ := flag.String("type", service.TokenTypeDoctor, "token type: doctor, patient or visitor")
	id := flag.String("id", "", "subject id (doctorId, patientId or visitorId)")
	consultation := flag.String("consultation", "", "consultation id, required for patient tokens")
	role := flag.String("role", "", `optional role claim, "admin" for admin doctor tokens`)
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")

	cfg := config.MustLoad()

	if *id == "" {
		fmt.Fprintln(os.Stderr, "tokengen: -id is required")
		os.Exit(2)
	}

	claims := service.TokenClaims{Type: *typ, Role: *role}
	switch *typ {
	case service.TokenTypeDoctor:
		claims.DoctorID = service.ClaimID(*id)
	case service.TokenTypePatient:
		if *consultation == "" {
			fmt.Fprintln(os.Stderr, "tokengen: -consultation is required for patient tokens")
			os.Exit(2)
		}
		claims.PatientID = service.ClaimID(*id)
		claims.ConsultationID = service.ClaimID(*consultation)
	case service.TokenTypeVisitor:
		claims.VisitorID = service.ClaimID(*id)
	default:
		fmt.Fprintf(os.Stderr, "tokengen: unknown type %q\n", *typ)
		os.Exit(2)
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	token, err := tokens.Issue(claims, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
