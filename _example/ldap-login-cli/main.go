package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
)

var (
	serverURL  string
	username   string
	password   string
	adminToken string
)

func init() {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	serverURL = getEnv("SERVER_URL", "http://localhost:8080")
	username = getEnv("LOGIN_USERNAME", "")
	password = getEnv("LOGIN_PASSWORD", "")
	adminToken = getEnv("ADMIN_TOKEN", "")

	if username == "" || password == "" {
		fmt.Println("Error: LOGIN_USERNAME and LOGIN_PASSWORD not set.")
		fmt.Println("Set them in a .env file or as environment variables.")
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type errorResponse struct {
	Error string `json:"error"`
}

type userInfo struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	Role       string `json:"role"`
	AuthSource string `json:"authSource"`
	ExternalDN string `json:"externalDn"`
}

type loginResponse struct {
	User   userInfo `json:"user"`
	Groups []string `json:"groups"`
}

type connectionTestResponse struct {
	Bind             *bool    `json:"bind"`
	SearchUser       *bool    `json:"searchUser"`
	AuthenticateUser *bool    `json:"authenticateUser"`
	Error            string   `json:"error"`
	Groups           []string `json:"groups"`
}

var client = &http.Client{Timeout: 30 * time.Second}

func main() {
	fmt.Printf("=== Directory Login CLI Demo ===\n\n")

	// Step 1: Check server health
	fmt.Println("Step 1: Checking server health...")
	if err := checkHealth(); err != nil {
		fmt.Printf("Server not reachable: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Server is healthy.")

	// Step 2: Verify credentials
	fmt.Printf("\nStep 2: Logging in as %q...\n", username)
	login, err := verifyCredentials()
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n----------------------------------------\n")
	fmt.Printf("Login successful!\n")
	fmt.Printf("User:        %s (%s)\n", login.User.Username, login.User.ID)
	if login.User.FullName != "" {
		fmt.Printf("Full name:   %s\n", login.User.FullName)
	}
	if login.User.Email != "" {
		fmt.Printf("Email:       %s\n", login.User.Email)
	}
	fmt.Printf("Auth source: %s\n", login.User.AuthSource)
	if login.User.ExternalDN != "" {
		fmt.Printf("Entry DN:    %s\n", login.User.ExternalDN)
	}
	fmt.Printf("Groups:      %v\n", login.Groups)
	fmt.Printf("----------------------------------------\n")

	// Step 3: Run a connection test through the admin API (optional)
	if adminToken == "" {
		fmt.Println("\nADMIN_TOKEN not set, skipping connection test.")
		return
	}

	fmt.Println("\nStep 3: Running directory connection test...")
	if err := runConnectionTest(); err != nil {
		fmt.Printf("Connection test failed: %v\n", err)
		os.Exit(1)
	}
}

func checkHealth() error {
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func verifyCredentials() (*loginResponse, error) {
	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})

	resp, err := client.Post(
		serverURL+"/api/v1/auth/login",
		"application/json",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(body, &errResp)
		if errResp.Error != "" {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var login loginResponse
	if err := json.Unmarshal(body, &login); err != nil {
		return nil, fmt.Errorf("unexpected response: %w", err)
	}
	return &login, nil
}

// runConnectionTest probes the stored configuration with the same
// credentials and prints how far the attempt got stage by stage.
func runConnectionTest() error {
	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})

	req, err := http.NewRequest(
		"POST",
		serverURL+"/api/v1/config/ldap/test",
		bytes.NewReader(payload),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(body, &errResp)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, errResp.Error)
	}

	var test connectionTestResponse
	if err := json.Unmarshal(body, &test); err != nil {
		return fmt.Errorf("unexpected response: %w", err)
	}

	fmt.Printf("\n----------------------------------------\n")
	fmt.Printf("Service bind:    %s\n", stage(test.Bind))
	fmt.Printf("User search:     %s\n", stage(test.SearchUser))
	fmt.Printf("Credential bind: %s\n", stage(test.AuthenticateUser))
	if test.Error != "" {
		fmt.Printf("Error:           %s\n", test.Error)
	}
	if len(test.Groups) > 0 {
		fmt.Printf("Groups:          %v\n", test.Groups)
	}
	fmt.Printf("----------------------------------------\n")
	return nil
}

// stage renders a tri-state outcome: a stage can pass, fail, or never run.
func stage(v *bool) string {
	switch {
	case v == nil:
		return "not reached"
	case *v:
		return "ok"
	default:
		return "failed"
	}
}
