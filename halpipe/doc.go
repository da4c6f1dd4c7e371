// Package halpipe builds pipelines for a statecache.Cache on a wgpu HAL
// device.
//
// Manager implements statecache.PipelineManager and statecache.RenderPassPool.
// Shader modules, pipeline objects and native pipelines are created on first
// use and shared afterwards, so the background compiler and the application
// can ask for the same pipeline concurrently and get one native object.
//
// Shaders must implement Source; shader.Shader does.
//
//	mgr, err := halpipe.New(device)
//	if err != nil {
//	    return err
//	}
//	defer mgr.Destroy()
//	cache := statecache.Open(mgr, mgr)
//	defer cache.Close()
package halpipe
