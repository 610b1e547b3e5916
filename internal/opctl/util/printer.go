package util

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"k8s.io/apimachinery/pkg/util/duration"
	"sigs.k8s.io/yaml"
)

// PrintCustomServicesTable 将 CustomService 列表以表格形式打印到指定的 writer。
func PrintCustomServicesTable(out io.Writer, items []samplev1.CustomService, withNamespace bool) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	defer w.Flush()

	if withNamespace {
		fmt.Fprint(w, "NAMESPACE\t")
	}
	fmt.Fprintln(w, "NAME\tPHASE\tENDPOINT\tFINALIZERS\tAGE")

	for _, svc := range items {
		if withNamespace {
			fmt.Fprintf(w, "%s\t", svc.Namespace)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			svc.Name,
			orNone(string(svc.Status.Phase)),
			orNone(svc.Status.Endpoint),
			len(svc.Finalizers),
			age(svc.CreationTimestamp.Time),
		)
	}
}

// PrintCustomServiceDetails 以分层、人类可读的格式打印单个 CustomService。
func PrintCustomServiceDetails(out io.Writer, svc *samplev1.CustomService) {
	fmt.Fprintf(out, "Name:               %s\n", svc.Name)
	fmt.Fprintf(out, "Namespace:          %s\n", svc.Namespace)
	fmt.Fprintf(out, "UID:                %s\n", svc.UID)
	fmt.Fprintf(out, "Resource Version:   %s\n", svc.ResourceVersion)
	fmt.Fprintf(out, "Generation:         %d\n", svc.Generation)
	fmt.Fprintf(out, "Created:            %s (%s ago)\n", svc.CreationTimestamp.UTC().Format(time.RFC3339), age(svc.CreationTimestamp.Time))
	if svc.DeletionTimestamp != nil {
		fmt.Fprintf(out, "Deleting Since:     %s\n", svc.DeletionTimestamp.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(out, "Labels:             %s\n", formatMap(svc.Labels))
	fmt.Fprintf(out, "Finalizers:         %s\n", orNone(strings.Join(svc.Finalizers, ", ")))

	fmt.Fprintf(out, "Spec:\n")
	fmt.Fprintf(out, "  Service Name:     %s\n", orNone(svc.Spec.ServiceName))
	fmt.Fprintf(out, "  Label:            %s\n", orNone(svc.Spec.Label))
	fmt.Fprintf(out, "  Port:             %d\n", svc.Spec.Port)

	fmt.Fprintf(out, "Status:\n")
	fmt.Fprintf(out, "  Phase:            %s\n", orNone(string(svc.Status.Phase)))
	fmt.Fprintf(out, "  Endpoint:         %s\n", orNone(svc.Status.Endpoint))
	fmt.Fprintf(out, "  Observed Gen:     %d\n", svc.Status.ObservedGeneration)

	if len(svc.Status.Conditions) == 0 {
		fmt.Fprintf(out, "Conditions:         <none>\n")
		return
	}
	fmt.Fprintf(out, "Conditions:\n")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TYPE\tSTATUS\tREASON\tAGE\tMESSAGE")
	for _, c := range svc.Status.Conditions {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", c.Type, c.Status, c.Reason, age(c.LastTransitionTime.Time), c.Message)
	}
	w.Flush()
}

// PrintObject 以 yaml 或 json 格式打印对象
func PrintObject(out io.Writer, obj interface{}, format string) error {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(obj)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "    ")
		return enc.Encode(obj)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func age(t time.Time) string {
	if t.IsZero() {
		return "<unknown>"
	}
	return duration.HumanDuration(time.Since(t))
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}

func formatMap(m map[string]string) string {
	if len(m) == 0 {
		return "<none>"
	}
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
