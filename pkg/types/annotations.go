package types

const (
	// AnnotationSourceType records which renderer produced an object.
	AnnotationSourceType = "kpipe.lburgazzoli.io/source.type"

	// AnnotationSourcePath records the chart, kustomization or glob an object comes from.
	AnnotationSourcePath = "kpipe.lburgazzoli.io/source.path"

	// AnnotationSourceFile records the template or manifest file an object comes from.
	AnnotationSourceFile = "kpipe.lburgazzoli.io/source.file"
)
