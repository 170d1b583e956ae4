//go:build windows

package system

import (
	"fmt"
	"sort"

	"github.com/yusufpapurcu/wmi"
)

const serviceQuery = "SELECT Name, DisplayName, State, StartMode FROM Win32_Service"

type win32Service struct {
	Name        string
	DisplayName string
	State       string
	StartMode   string
}

// ListServices queries Win32_Service through WMI
func ListServices() ([]Service, error) {
	var rows []win32Service
	if err := wmi.Query(serviceQuery, &rows); err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}

	services := make([]Service, 0, len(rows))
	for _, r := range rows {
		services = append(services, Service{
			Name:        r.Name,
			DisplayName: r.DisplayName,
			State:       r.State,
			StartMode:   r.StartMode,
		})
	}

	sort.Slice(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})
	return services, nil
}
