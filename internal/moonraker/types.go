package moonraker

import (
	"encoding/json"
	"fmt"
)

// ServerInfo mirrors the payload returned by /server/info.
type ServerInfo struct {
	KlippyConnected  bool     `json:"klippy_connected"`
	KlippyState      string   `json:"klippy_state"`
	Components       []string `json:"components"`
	FailedComponents []string `json:"failed_components"`
	Warnings         []string `json:"warnings"`
	MoonrakerVersion string   `json:"moonraker_version"`
	APIVersionString string   `json:"api_version_string"`
}

// HasComponent reports whether a Moonraker component is loaded.
func (s ServerInfo) HasComponent(name string) bool {
	for _, c := range s.Components {
		if c == name {
			return true
		}
	}
	return false
}

// PrinterInfo mirrors printer.info.
type PrinterInfo struct {
	State           string `json:"state"`
	StateMessage    string `json:"state_message"`
	Hostname        string `json:"hostname"`
	SoftwareVersion string `json:"software_version"`
	CPUInfo         string `json:"cpu_info"`
}

// ObjectsList mirrors printer.objects.list.
type ObjectsList struct {
	Objects []string `json:"objects"`
}

// QueryResult mirrors printer.objects.query and printer.objects.subscribe.
type QueryResult struct {
	Eventtime float64         `json:"eventtime"`
	Status    json.RawMessage `json:"status"`
}

// TemperatureStore mirrors server.temperature_store: device → series → samples.
type TemperatureStore map[string]map[string][]float64

// PowerDevice mirrors one entry of machine.device_power.devices.
type PowerDevice struct {
	Device              string `json:"device"`
	Status              string `json:"status"`
	LockedWhilePrinting bool   `json:"locked_while_printing"`
	Type                string `json:"type"`
}

// PowerDeviceList mirrors machine.device_power.devices.
type PowerDeviceList struct {
	Devices []PowerDevice `json:"devices"`
}

// FileEntry is one file from server.files.list.
type FileEntry struct {
	Path        string  `json:"path"`
	Modified    float64 `json:"modified"`
	Size        int64   `json:"size"`
	Permissions string  `json:"permissions"`
}

// DirectoryListing mirrors server.files.get_directory.
type DirectoryListing struct {
	Dirs []struct {
		DirName  string  `json:"dirname"`
		Modified float64 `json:"modified"`
		Size     int64   `json:"size"`
	} `json:"dirs"`
	Files []struct {
		Filename string  `json:"filename"`
		Modified float64 `json:"modified"`
		Size     int64   `json:"size"`
	} `json:"files"`
	DiskUsage struct {
		Total int64 `json:"total"`
		Used  int64 `json:"used"`
		Free  int64 `json:"free"`
	} `json:"disk_usage"`
}

// FileMetadata mirrors the fields of server.files.metadata the console shows.
type FileMetadata struct {
	Filename           string  `json:"filename"`
	Size               int64   `json:"size"`
	Modified           float64 `json:"modified"`
	Slicer             string  `json:"slicer"`
	SlicerVersion      string  `json:"slicer_version"`
	EstimatedTime      float64 `json:"estimated_time"`
	FilamentTotal      float64 `json:"filament_total"`
	LayerHeight        float64 `json:"layer_height"`
	ObjectHeight       float64 `json:"object_height"`
	FirstLayerBedTemp  float64 `json:"first_layer_bed_temp"`
	FirstLayerExtrTemp float64 `json:"first_layer_extr_temp"`
}

// ServerConfig carries the data_store section of server.config.
type ServerConfig struct {
	Config struct {
		DataStore struct {
			TemperatureStoreSize int `json:"temperature_store_size"`
			GcodeStoreSize       int `json:"gcode_store_size"`
		} `json:"data_store"`
	} `json:"config"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("moonraker error %d: %s", e.Code, e.Message)
}

// Response is a correlated reply, delivered together with the method and
// params of the request that produced it.
type Response struct {
	ID     uint64
	Result json.RawMessage
	Error  *RPCError
	Method string
	Params any
}

// Err returns the remote error, if any.
func (r Response) Err() error {
	if r.Error != nil {
		return r.Error
	}
	return nil
}

// Decode unmarshals the result into dest, surfacing remote errors first.
func (r Response) Decode(dest any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if len(r.Result) == 0 {
		return fmt.Errorf("%s: empty result", r.Method)
	}
	if err := json.Unmarshal(r.Result, dest); err != nil {
		return fmt.Errorf("%s: decode result: %w", r.Method, err)
	}
	return nil
}
