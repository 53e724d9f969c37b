// authgate es el CLI admin del motor de autorización (vía HTTP).
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if c.APIKey != "" {
		req.Header.Set("X-Admin-API-Key", c.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func (c *client) run(method, path string, payload any) error {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	status, resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("fallo: status=%d body=%s", status, string(resp))
	}
	c.print(status, resp)
	return nil
}

func main() {
	var (
		baseURL = envOr("AUTHGATE_URL", "http://localhost:8080")
		apiKey  = envOr("AUTHGATE_ADMIN_KEY", "")
		out     = envOr("AUTHGATE_OUT", "text")
		timeout = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "authgate",
		Short: "CLI admin del motor de autorización",
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del servicio (env AUTHGATE_URL)")
	root.PersistentFlags().StringVar(&apiKey, "admin-api-key", apiKey, "API key admin (env AUTHGATE_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{HTTP: &http.Client{Timeout: timeout}}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cl.BaseURL, cl.APIKey, cl.OutFormat = baseURL, apiKey, out
	}

	// check <user> <resource> <action> <scope>
	checkCmd := &cobra.Command{
		Use:   "check <user> <resource> <action> <scope>",
		Short: "Evaluar un permiso",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("POST", "/v1/check", map[string]string{
				"user_id":  args[0],
				"resource": args[1],
				"action":   args[2],
				"scope":    args[3],
			})
		},
	}

	// roles
	var actor, reason string
	assignCmd := &cobra.Command{
		Use:   "assign <user> <role>",
		Short: "Asignar un rol a un usuario",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("POST", "/v1/admin/roles/assign", map[string]string{
				"user_id": args[0],
				"role":    args[1],
				"actor":   actor,
				"reason":  reason,
			})
		},
	}
	assignCmd.Flags().StringVar(&actor, "actor", "cli", "Quién ejecuta la operación")
	assignCmd.Flags().StringVar(&reason, "reason", "", "Motivo (opcional)")

	revokeCmd := &cobra.Command{
		Use:   "revoke <user> <role>",
		Short: "Revocar un rol de un usuario",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("POST", "/v1/admin/roles/revoke", map[string]string{
				"user_id": args[0],
				"role":    args[1],
				"actor":   actor,
				"reason":  reason,
			})
		},
	}
	revokeCmd.Flags().StringVar(&actor, "actor", "cli", "Quién ejecuta la operación")
	revokeCmd.Flags().StringVar(&reason, "reason", "", "Motivo (opcional)")

	rolesCmd := &cobra.Command{
		Use:   "roles [name]",
		Short: "Listar el catálogo o ver un rol",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return cl.run("GET", "/v1/admin/roles/"+args[0], nil)
			}
			return cl.run("GET", "/v1/admin/roles", nil)
		},
	}

	// grants
	var grantTTL time.Duration
	grantCmd := &cobra.Command{
		Use:   "grant <user> <resource> <action> <scope>",
		Short: "Emitir un permiso temporal",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("POST", "/v1/admin/grants", map[string]any{
				"user_id":    args[0],
				"resource":   args[1],
				"action":     args[2],
				"scope":      args[3],
				"expires_at": time.Now().Add(grantTTL).UTC().Format(time.RFC3339),
				"actor":      actor,
			})
		},
	}
	grantCmd.Flags().DurationVar(&grantTTL, "ttl", time.Hour, "Vigencia del permiso (ej. 30m, 2h)")
	grantCmd.Flags().StringVar(&actor, "actor", "cli", "Quién ejecuta la operación")

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remover físicamente los grants vencidos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("POST", "/v1/admin/grants/cleanup", nil)
		},
	}

	// users
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Listar usuarios con roles o grants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("GET", "/v1/admin/users", nil)
		},
	}

	userCmd := &cobra.Command{Use: "user", Short: "Consultas sobre un usuario"}
	userRolesCmd := &cobra.Command{
		Use:   "roles <user>",
		Short: "Roles directos del usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("GET", "/v1/admin/users/"+args[0]+"/roles", nil)
		},
	}
	userGrantsCmd := &cobra.Command{
		Use:   "grants <user>",
		Short: "Permisos temporales vigentes del usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("GET", "/v1/admin/users/"+args[0]+"/permissions", nil)
		},
	}
	var historyLimit int
	userHistoryCmd := &cobra.Command{
		Use:   "history <user>",
		Short: "Historial de auditoría del usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/admin/users/" + args[0] + "/history"
			if historyLimit > 0 {
				path += "?limit=" + strconv.Itoa(historyLimit)
			}
			return cl.run("GET", path, nil)
		},
	}
	userHistoryCmd.Flags().IntVar(&historyLimit, "limit", 50, "Máximo de entradas")
	userCmd.AddCommand(userRolesCmd, userGrantsCmd, userHistoryCmd)

	// debug
	debugCmd := &cobra.Command{
		Use:   "debug <user> <resource> <action> <scope>",
		Short: "Traza completa de una evaluación (sin cache ni auditoría)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("POST", "/v1/admin/debug/permission", map[string]string{
				"user_id":  args[0],
				"resource": args[1],
				"action":   args[2],
				"scope":    args[3],
			})
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Estadísticas agregadas del motor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("GET", "/v1/admin/stats", nil)
		},
	}

	root.AddCommand(checkCmd, assignCmd, revokeCmd, rolesCmd, grantCmd, cleanupCmd, usersCmd, userCmd, debugCmd, statsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
