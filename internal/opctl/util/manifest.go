package util

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	objutil "github.com/fx147/operator-dispatcher/pkg/util"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"
)

// DecodeCustomServices 解析一个 YAML 或 JSON 清单，清单中可以用 "---" 分隔多个对象。
// 每个对象都必须是 CustomService，未指定命名空间的对象使用 default。
func DecodeCustomServices(r io.Reader) ([]*samplev1.CustomService, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(r))

	var items []*samplev1.CustomService
	for i := 0; ; i++ {
		doc, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read document %d: %w", i, err)
		}
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}

		svc := &samplev1.CustomService{}
		if err := yaml.UnmarshalStrict(doc, svc); err != nil {
			return nil, fmt.Errorf("failed to decode document %d: %w", i, err)
		}
		gvk := svc.GroupVersionKind()
		if gvk != samplev1.SchemeGroupVersion.WithKind(samplev1.CustomServiceKind) {
			return nil, fmt.Errorf("document %d: unsupported kind %q (apiVersion %q)", i, svc.Kind, svc.APIVersion)
		}
		if svc.Name == "" {
			return nil, fmt.Errorf("document %d: metadata.name is required", i)
		}
		if svc.Namespace == "" {
			svc.Namespace = objutil.DefaultNamespace
		}
		items = append(items, svc)
	}
	return items, nil
}
